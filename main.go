package main

import (
	"GiftFM/cmd"
)

func main() {
	cmd.Execute()
}
