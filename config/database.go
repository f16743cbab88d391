package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Environment variables holding the MongoDB settings.
const (
	EnvMongoConnectionString  = "MONGODB_CS"
	EnvMongoDatabaseName      = "MONGODB_DB_NAME"
	EnvMongoUserCollection    = "MONGODB_USER_COLLECTION"
	EnvMongoJobDataCollection = "MONGODB_JOBDATA_COLLECTION"
)

// ErrIncompleteDatabaseSettings is returned by Validate when any field is empty.
var ErrIncompleteDatabaseSettings = errors.New("incomplete database settings")

// DatabaseSettings locates the MongoDB database and its collections.
// It is built once at startup and passed by value afterwards.
type DatabaseSettings struct {
	ConnectionString      string
	DatabaseName          string
	UsersCollectionName   string
	JobDataCollectionName string
}

// ResolveDatabaseSettings builds DatabaseSettings from the given lookup
// function. Unset variables resolve to empty fields; it never fails.
func ResolveDatabaseSettings(getenv func(string) string) DatabaseSettings {
	if getenv == nil {
		getenv = os.Getenv
	}
	return DatabaseSettings{
		ConnectionString:      getenv(EnvMongoConnectionString),
		DatabaseName:          getenv(EnvMongoDatabaseName),
		UsersCollectionName:   getenv(EnvMongoUserCollection),
		JobDataCollectionName: getenv(EnvMongoJobDataCollection),
	}
}

// DatabaseSettingsFromEnv resolves DatabaseSettings from the process environment.
func DatabaseSettingsFromEnv() DatabaseSettings {
	return ResolveDatabaseSettings(os.Getenv)
}

// Missing returns the names of the environment variables whose values are empty.
func (s DatabaseSettings) Missing() []string {
	var missing []string
	if s.ConnectionString == "" {
		missing = append(missing, EnvMongoConnectionString)
	}
	if s.DatabaseName == "" {
		missing = append(missing, EnvMongoDatabaseName)
	}
	if s.UsersCollectionName == "" {
		missing = append(missing, EnvMongoUserCollection)
	}
	if s.JobDataCollectionName == "" {
		missing = append(missing, EnvMongoJobDataCollection)
	}
	return missing
}

// Validate reports every missing setting at once.
func (s DatabaseSettings) Validate() error {
	if missing := s.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteDatabaseSettings, strings.Join(missing, ", "))
	}
	return nil
}

// Redacted returns the connection string with any password replaced, for logging.
func (s DatabaseSettings) Redacted() string {
	if s.ConnectionString == "" {
		return ""
	}
	u, err := url.Parse(s.ConnectionString)
	if err != nil {
		return redactUserinfo(s.ConnectionString)
	}
	if u.User == nil {
		return s.ConnectionString
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), redactedPassword)
	}
	return u.String()
}

const redactedPassword = "xxxxx"

// redactUserinfo masks the password of a connection string url.Parse rejects.
// Everything between the scheme and the last '@' is treated as userinfo.
func redactUserinfo(cs string) string {
	at := strings.LastIndex(cs, "@")
	if at < 0 {
		return cs
	}
	start := 0
	if i := strings.Index(cs, "://"); i >= 0 && i < at {
		start = i + len("://")
	}
	user, _, hasPassword := strings.Cut(cs[start:at], ":")
	if !hasPassword {
		return cs
	}
	return cs[:start] + user + ":" + redactedPassword + cs[at:]
}
