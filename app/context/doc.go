// Package context holds the state shared by a migrain run: filesystem,
// environment, logger, configuration and standard streams.
//
// The cli package receives it in every command's Run method, while the app
// package builds it. It lives apart from both so that cli doesn't import app.
package context
