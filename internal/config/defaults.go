package config

const (
	// DefaultProjectPath is the default project path
	DefaultProjectPath = "."
	// DefaultTestPath is the default directory where package discovery starts
	DefaultTestPath = "."
	// DefaultReportFile is used when --ctrf is given without a path
	DefaultReportFile = "ctrf-report.json"
	// DefaultSuite is the default suite name, naming the runner
	DefaultSuite = "gotest"
	// DefaultMarkersFile is read when present and no --markers flag is given
	DefaultMarkersFile = ".ctrf-markers.yaml"
	// DefaultProcessors is the default number of workers (1 = not distributed)
	DefaultProcessors = 1
	// DefaultGoBinary is the go tool used to run tests
	DefaultGoBinary = "go"
	// DefaultEventFormat is the input format of the collect command
	DefaultEventFormat = "gotest"
)

// DefaultPathsToIgnore are the default directories to ignore when scanning for packages
var DefaultPathsToIgnore = []string{
	"vendor",
	"node_modules",
}
