// Copyright © 2018 One Concern

package main

import (
	"github.com/oneconcern/timestream/cmd/tstk/cmd"
)

func main() {
	cmd.Execute()
}
