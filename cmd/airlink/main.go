package main

import (
	"github.com/tablemateio/airlink/cmd/airlink/cmd"
)

func main() {
	cmd.Execute()
}
