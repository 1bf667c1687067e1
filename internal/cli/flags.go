package cli

import "ctrf/internal/config"

// Flags holds command-line flags
type Flags struct {
	Processors int
	TestPath   string
	NameFilter string
	TestCases  bool
	FailFast   bool
	Format     string
	PackageDir string
	Publish    bool
	Verbose    bool

	// Report settings, applied to the config directly
	Report      string
	Suite       string
	MarkersPath string
	GoBinary    string
	Output      string
}

// ToConfigFlags converts CLI flags to config flags
func (f *Flags) ToConfigFlags() config.Flags {
	return config.Flags{
		Processors: f.Processors,
		TestPath:   f.TestPath,
		NameFilter: f.NameFilter,
		TestCases:  f.TestCases,
		FailFast:   f.FailFast,
		Format:     f.Format,
		PackageDir: f.PackageDir,
		Publish:    f.Publish,
		Verbose:    f.Verbose,
	}
}
