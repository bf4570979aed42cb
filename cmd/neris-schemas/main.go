// Package main is the entry point for neris-schemas.
//
// neris-schemas fetches the NERIS OpenAPI description, publishes every
// component schema as a standalone JSON Schema document and generates Go
// types from the published documents.
package main

func main() {
	Execute()
}
