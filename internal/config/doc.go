// Package config resolves claude-meet settings.
//
// Each setting is read from the process environment first, then from the
// per-user settings file (~/.claude-meet/settings.env, KEY=value lines), and
// finally falls back to a hardcoded default. The Anthropic API key additionally
// falls back to config/anthropic_apikey.txt relative to the working directory.
//
// A Config is resolved once at startup and is not re-read for the lifetime of
// the process.
package config
