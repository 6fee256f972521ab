package workgen

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// WorkloadClass builds the workloads of the load and run phases from
// properties.
// It is constructed with no argument so it can be picked by name; any
// argument-based initialization is done by Init.
type WorkloadClass interface {
	// Init reads the properties of the scenario. Called once before any
	// other method.
	Init(p Properties) error
	// Tables lists the tables the scenario runs against, with the
	// configuration they are created with by the load phase.
	Tables() []PlanTable
	// Load returns the workload filling the tables.
	Load() (*Workload, error)
	// Transactions returns the workload of the run phase.
	Transactions() (*Workload, error)
}

type MakeWorkloadFunc func() WorkloadClass

var (
	workloadsLock sync.RWMutex
	workloads     = map[string]MakeWorkloadFunc{
		"plan": func() WorkloadClass {
			return &PlanWorkload{}
		},
	}
)

// RegisterWorkload makes a workload class available by name.
func RegisterWorkload(name string, f MakeWorkloadFunc) {
	workloadsLock.Lock()
	defer workloadsLock.Unlock()
	workloads[name] = f
}

// Workloads returns the names of the registered workload classes.
func Workloads() []string {
	workloadsLock.RLock()
	defer workloadsLock.RUnlock()
	names := make([]string, 0, len(workloads))
	for name := range workloads {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func NewWorkloadClass(className string) (WorkloadClass, error) {
	workloadsLock.RLock()
	f, ok := workloads[className]
	workloadsLock.RUnlock()
	if !ok {
		return nil, errors.Errorf("unsupported workload: %s", className)
	}
	return f(), nil
}

// PlanWorkload runs a YAML plan, named by the plan property, in both
// phases.
type PlanWorkload struct {
	plan *Plan
}

func NewPlanWorkload(plan *Plan) *PlanWorkload {
	return &PlanWorkload{
		plan: plan,
	}
}

func (self *PlanWorkload) Init(p Properties) error {
	if self.plan != nil {
		return nil
	}
	filename, ok := p[PropertyPlan]
	if !ok {
		return errors.New("no plan file given")
	}
	plan, err := LoadPlan(filename)
	if err != nil {
		return err
	}
	self.plan = plan
	return nil
}

func (self *PlanWorkload) Tables() []PlanTable {
	return self.plan.Tables
}

func (self *PlanWorkload) Load() (*Workload, error) {
	return self.plan.Build()
}

func (self *PlanWorkload) Transactions() (*Workload, error) {
	return self.plan.Build()
}
