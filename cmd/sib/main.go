package main

import "github.com/Chilanguiux/Image-smart-finder/cmd/sib/cmd"

func main() {
	cmd.Execute()
}
