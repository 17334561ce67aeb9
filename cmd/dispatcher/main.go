package main

import "github.com/vietddude/dispatcher/internal/cli"

func main() {
	cli.Execute()
}
