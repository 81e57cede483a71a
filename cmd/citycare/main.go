package main

import "citycare/cmd/citycare/cmd"

func main() {
	cmd.Execute()
}
