//go:build occa

package main

import "github.com/notargets/halogrid/kernel/occa"

func init() {
	occa.Register()
}
