package main

import "github.com/Seann-Moser/i2cpwm/cmd"

func main() {
	cmd.Execute()
}
