package server

//go:generate swag init -g internal/server/server.go -o docs/swagger

// @title Provascan API
// @version 0.1
// @description Interactive documentation for the Provascan media provenance API surface.
// @contact.name Provascan Maintainers
// @contact.url https://github.com/provascan/provascan
// @BasePath /
