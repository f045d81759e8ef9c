// Package config defines the typed build configuration and loads it from
// an optional HCL file.
//
// The HCL file is parsed once at startup. Every recognised block and
// attribute has a documented default, so a project without a config file
// builds with the conventional `css/` -> `dist/` layout.
package config
