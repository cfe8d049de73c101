// Package main provides the entry point for the linkcheck CLI.
//
// linkcheck checks the links of web sites and local HTML files. It crawls
// internal pages recursively, reports broken links and honors robots.txt.
//
// Usage:
//
//	linkcheck check https://example.com/
//	linkcheck check --recursion-level 1 index.html
//
// See --help for all available options.
package main

func main() {
	Execute()
}
