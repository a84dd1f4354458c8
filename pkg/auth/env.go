package auth

import (
	"context"
	"maps"
	"os"
	"slices"
)

// envVars maps environment variable names to cookie names.
var envVars = map[string]string{
	"INSTAGRAM_SESSIONID":  "sessionid",
	"INSTAGRAM_CSRFTOKEN":  "csrftoken",
	"INSTAGRAM_DS_USER_ID": "ds_user_id",
}

// EnvSource reads cookies from environment variables.
type EnvSource struct{}

// Cookies returns Instagram cookies found in the environment.
func (EnvSource) Cookies(context.Context) (map[string]string, error) {
	cookies := make(map[string]string)
	for envVar, cookieName := range envVars {
		if value := os.Getenv(envVar); value != "" {
			cookies[cookieName] = value
		}
	}

	if len(cookies) == 0 {
		return nil, nil //nolint:nilnil // no env vars set is not an error
	}
	return cookies, nil
}

// EnvVars returns the environment variable names EnvSource reads.
// This is useful for generating help messages.
func EnvVars() []string {
	return slices.Sorted(maps.Keys(envVars))
}
