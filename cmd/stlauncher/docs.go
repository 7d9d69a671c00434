package main

// General API documentation for swaggo. Regenerate the registered docs with
// `swag init -g cmd/stlauncher/docs.go -o internal/httpapi/apidocs`.
//
// @title           stlauncher API
// @version         1.0
// @description     Control API for a locally managed SillyTavern server and its API key aggregator.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
