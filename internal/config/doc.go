// Package config provides the configuration of a linkcheck run.
//
// A Config starts from the defaults of NewConfig. Settings from a YAML
// file (see FindConfigFile and LoadConfigFile) are applied with
// Config.ApplyFile, and CLI flags override both. The file also carries
// per-host cookies and headers, looked up with File.GetSiteConfig.
package config
