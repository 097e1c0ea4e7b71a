// Package main provides the impressionhash command line tool.
//
// Usage:
//
//	impressionhash hash [--variant larger] FILE...
//	impressionhash compare [--phash] A B
//	impressionhash similarity HEX HEX
//	impressionhash normalize IN OUT.png
//	impressionhash watch [--file IMAGE] [--threshold 0.9]
//
// Pass --remote to hash and compare through a running hasher server.
package main

func main() {
	Execute()
}
