package main

import "github.com/mvp-joe/dsconv/internal/cli"

func main() {
	cli.Execute()
}
