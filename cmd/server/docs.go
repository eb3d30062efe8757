package main

//go:generate swag init -d ../.. -g cmd/server/main.go -o ../../docs

// @title           Dealflow API
// @version         0.1.0
// @description     Deal ingestion, enrichment, underwriting, memo generation and portfolio insights.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
