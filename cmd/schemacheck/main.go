package main

import "github.com/dbsmedya/schemacheck/cmd/schemacheck/cmd"

func main() {
	cmd.Execute()
}
