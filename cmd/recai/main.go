// Package main is the entry point for recai, the bootstrap orchestrator for
// the Recaizade crew application. It provisions a Python virtualenv, installs
// the pip requirements, seeds the secrets file, pulls the required Ollama
// models, and optionally hands off to the Streamlit UI.
package main

func main() {
	Execute()
}
