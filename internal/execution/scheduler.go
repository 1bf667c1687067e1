package execution

// Scheduler distributes packages across workers
type Scheduler interface {
	Schedule(packages []string, workerCount int) [][]string
}

// RoundRobinScheduler distributes packages evenly across workers
type RoundRobinScheduler struct{}

// NewRoundRobinScheduler creates a new RoundRobinScheduler
func NewRoundRobinScheduler() *RoundRobinScheduler {
	return &RoundRobinScheduler{}
}

// Schedule distributes packages evenly across workers using round-robin.
// Workers that would receive nothing are dropped.
func (s *RoundRobinScheduler) Schedule(packages []string, workerCount int) [][]string {
	if workerCount <= 0 {
		workerCount = 1
	}
	if workerCount > len(packages) {
		workerCount = len(packages)
	}

	distribution := make([][]string, workerCount)
	for i := range distribution {
		distribution[i] = make([]string, 0)
	}

	for i, pkg := range packages {
		workerIndex := i % workerCount
		distribution[workerIndex] = append(distribution[workerIndex], pkg)
	}

	return distribution
}
