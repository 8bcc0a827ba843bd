//go:build !unix

package process

import "os/exec"

// killGroupOnCancel keeps the default behaviour: only the direct child is killed.
func killGroupOnCancel(*exec.Cmd) {}
