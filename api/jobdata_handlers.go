package api

import (
	"net/http"

	"jatrackr/core"
)

// listJobApplications godoc
//
//	@Summary	List job applications
//	@Tags		jobdata
//	@Produce	json
//	@Success	200	{array}		core.JobApplication
//	@Failure	503	{object}	ErrorResponse
//	@Router		/jobdata [get]
func (a *API) listJobApplications(w http.ResponseWriter, r *http.Request, _ string) {
	jobs, err := a.jobData.ListJobApplications(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// getJobApplication godoc
//
//	@Summary	Get a job application by ID
//	@Tags		jobdata
//	@Produce	json
//	@Param		id	path		string	true	"Job application ID"
//	@Success	200	{object}	core.JobApplication
//	@Failure	404	{object}	ErrorResponse
//	@Failure	503	{object}	ErrorResponse
//	@Router		/jobdata/get/{id} [get]
func (a *API) getJobApplication(w http.ResponseWriter, r *http.Request, id string) {
	job, err := a.jobData.GetJobApplication(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// listJobApplicationsForUser godoc
//
//	@Summary	List a user's job applications
//	@Tags		jobdata
//	@Produce	json
//	@Param		id	path		string	true	"User ID"
//	@Success	200	{array}		core.JobApplication
//	@Failure	404	{object}	ErrorResponse
//	@Failure	503	{object}	ErrorResponse
//	@Router		/jobdata/user/{id} [get]
func (a *API) listJobApplicationsForUser(w http.ResponseWriter, r *http.Request, userID string) {
	jobs, err := a.jobData.ListJobApplicationsForUser(r.Context(), userID)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// createJobApplication godoc
//
//	@Summary		Track a new job application
//	@Description	Status defaults to Applied; the owning user must exist
//	@Tags			jobdata
//	@Accept			json
//	@Produce		json
//	@Param			job	body		core.JobApplicationInput	true	"New job application"
//	@Success		201	{object}	core.JobApplication
//	@Failure		400	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/jobdata/create [post]
func (a *API) createJobApplication(w http.ResponseWriter, r *http.Request, _ string) {
	var input core.JobApplicationInput
	if err := a.decodeJSONBody(w, r, &input); err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	job, err := a.jobData.CreateJobApplication(r.Context(), input)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/jobdata/get/"+job.ID)
	writeJSON(w, http.StatusCreated, job)
}

// updateJobApplication godoc
//
//	@Summary	Update a job application
//	@Tags		jobdata
//	@Accept		json
//	@Produce	json
//	@Param		id	path		string						true	"Job application ID"
//	@Param		job	body		core.JobApplicationInput	true	"Updated job application"
//	@Success	200	{object}	core.JobApplication
//	@Failure	400	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Failure	503	{object}	ErrorResponse
//	@Router		/jobdata/update/{id} [put]
func (a *API) updateJobApplication(w http.ResponseWriter, r *http.Request, id string) {
	var input core.JobApplicationInput
	if err := a.decodeJSONBody(w, r, &input); err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	job, err := a.jobData.UpdateJobApplication(r.Context(), id, input)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// deleteJobApplication godoc
//
//	@Summary	Delete a job application
//	@Tags		jobdata
//	@Param		id	path	string	true	"Job application ID"
//	@Success	204
//	@Failure	404	{object}	ErrorResponse
//	@Failure	503	{object}	ErrorResponse
//	@Router		/jobdata/delete/{id} [delete]
func (a *API) deleteJobApplication(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.jobData.DeleteJobApplication(r.Context(), id); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
