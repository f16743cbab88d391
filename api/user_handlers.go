package api

import (
	"net/http"

	"jatrackr/core"
)

// listUsers godoc
//
//	@Summary		List users
//	@Description	Returns every user account ordered by username
//	@Tags			users
//	@Produce		json
//	@Success		200	{array}		core.User
//	@Failure		503	{object}	ErrorResponse
//	@Router			/users [get]
func (a *API) listUsers(w http.ResponseWriter, r *http.Request, _ string) {
	users, err := a.users.ListUsers(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// getUser godoc
//
//	@Summary		Get a user by ID
//	@Tags			users
//	@Produce		json
//	@Param			id	path		string	true	"User ID"
//	@Success		200	{object}	core.User
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/users/get/{id} [get]
func (a *API) getUser(w http.ResponseWriter, r *http.Request, id string) {
	user, err := a.users.GetUser(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// getUserByUsername godoc
//
//	@Summary		Get a user by username
//	@Tags			users
//	@Produce		json
//	@Param			id	path		string	true	"Username"
//	@Success		200	{object}	core.User
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/users/username/{id} [get]
func (a *API) getUserByUsername(w http.ResponseWriter, r *http.Request, username string) {
	user, err := a.users.GetUserByUsername(r.Context(), username)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// getUserByEmail godoc
//
//	@Summary		Get a user by email address
//	@Tags			users
//	@Produce		json
//	@Param			id	path		string	true	"Email address"
//	@Success		200	{object}	core.User
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/users/email/{id} [get]
func (a *API) getUserByEmail(w http.ResponseWriter, r *http.Request, email string) {
	user, err := a.users.GetUserByEmail(r.Context(), email)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// createUser godoc
//
//	@Summary		Create a user
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			user	body		core.UserInput	true	"New user"
//	@Success		201		{object}	core.User
//	@Failure		400		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/users/create [post]
func (a *API) createUser(w http.ResponseWriter, r *http.Request, _ string) {
	var input core.UserInput
	if err := a.decodeJSONBody(w, r, &input); err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	user, err := a.users.CreateUser(r.Context(), input)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/users/get/"+user.ID)
	writeJSON(w, http.StatusCreated, user)
}

// updateUser godoc
//
//	@Summary		Update a user
//	@Description	Replaces the user's profile; an omitted password keeps the current one
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"User ID"
//	@Param			user	body		core.UserInput	true	"Updated user"
//	@Success		200		{object}	core.User
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/users/update/{id} [put]
func (a *API) updateUser(w http.ResponseWriter, r *http.Request, id string) {
	var input core.UserInput
	if err := a.decodeJSONBody(w, r, &input); err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	user, err := a.users.UpdateUser(r.Context(), id, input)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// deleteUser godoc
//
//	@Summary		Delete a user
//	@Description	Deletes the user and the user's job applications
//	@Tags			users
//	@Param			id	path	string	true	"User ID"
//	@Success		204
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/users/delete/{id} [delete]
func (a *API) deleteUser(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.users.DeleteUser(r.Context(), id); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
