package main

import "github.com/frahmantamala/number-provisioning/cmd"

func main() {
	cmd.Execute()
}
