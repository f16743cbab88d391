// Package core defines the domain model shared by the JobAppTrackr API.
//
// It holds the user and job-application types, their status values, the
// sentinel errors the service and transport layers agree on, and the Redis
// cache used for shared counters.
//
// Types here carry no storage or transport logic beyond struct tags: bson
// tags for MongoDB, json tags for the HTTP API, validate tags for input
// checking in the service layer.
package core
