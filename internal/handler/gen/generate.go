// Package gen holds the server interfaces and wire types generated from
// spec/openapi.yaml. Edit the spec and run `go generate ./...`; never edit
// api.gen.go by hand.
package gen

//go:generate go run github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen@v2.5.1 --config=oapi-codegen.yaml ../../../spec/openapi.yaml
