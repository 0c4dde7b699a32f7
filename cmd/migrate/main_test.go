package main

import (
	"testing"

	_ "github.com/bago-furniture/bago-inventory/internal/testing/guard"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	main()
}
