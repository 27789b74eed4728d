package cgroups_manager

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"code.cloudfoundry.org/bootstrap"
)

// Subsystems are the controlled resources: one limit-group per subsystem
// per container.
var Subsystems = []string{"memory", "cpu"}

const cpuPeriodMicroseconds = 100000

// CgroupsManager creates, populates, and removes the per-container
// limit-groups beneath a cgroup filesystem mount point.
type CgroupsManager struct {
	cgroupsPath string
}

// GroupBusyError reports a limit-group that still has member processes and
// so cannot be removed.
type GroupBusyError struct {
	Subsystem string
	PIDs      []int
}

func (e GroupBusyError) Error() string {
	return fmt.Sprintf("cgroup %s still has member processes: %v", e.Subsystem, e.PIDs)
}

func New(cgroupsPath string) *CgroupsManager {
	return &CgroupsManager{cgroupsPath: cgroupsPath}
}

// Create makes a limit-group under each subsystem and writes the configured
// ceilings into it before any process is admitted.
func (m *CgroupsManager) Create(handle string, limits bootstrap.Limits) error {
	for _, subsystem := range Subsystems {
		if err := os.MkdirAll(m.SubsystemPath(subsystem, handle), 0755); err != nil {
			return err
		}
	}

	if err := m.Set("memory", handle, "memory.limit_in_bytes", strconv.FormatInt(limits.MemoryLimitInBytes, 10)); err != nil {
		return err
	}

	if err := m.Set("cpu", handle, "cpu.cfs_period_us", strconv.Itoa(cpuPeriodMicroseconds)); err != nil {
		return err
	}

	quota := cpuPeriodMicroseconds * limits.CPUQuotaPercent / 100
	return m.Set("cpu", handle, "cpu.cfs_quota_us", strconv.FormatInt(quota, 10))
}

// Add admits the process into every limit-group of the container.
func (m *CgroupsManager) Add(handle string, pid int) error {
	for _, subsystem := range Subsystems {
		err := os.WriteFile(
			path.Join(m.SubsystemPath(subsystem, handle), "cgroup.procs"),
			[]byte(strconv.Itoa(pid)),
			0644,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// Remove deletes the container's limit-groups. A group that no longer
// exists is skipped; a group that still has member processes is reported
// as a GroupBusyError but does not stop removal of the other groups.
func (m *CgroupsManager) Remove(handle string) error {
	var result *multierror.Error

	for _, subsystem := range Subsystems {
		groupPath := m.SubsystemPath(subsystem, handle)

		if _, err := os.Stat(groupPath); os.IsNotExist(err) {
			continue
		}

		pids, err := m.memberPIDs(subsystem, handle)
		if err == nil && len(pids) > 0 {
			result = multierror.Append(result, GroupBusyError{Subsystem: subsystem, PIDs: pids})
			continue
		}

		// RemoveAll tries plain rmdir first, which is what a populated but
		// process-free cgroup directory needs.
		if err := os.RemoveAll(groupPath); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

func (m *CgroupsManager) Set(subsystem, handle, name, value string) error {
	return os.WriteFile(path.Join(m.SubsystemPath(subsystem, handle), name), []byte(value), 0644)
}

func (m *CgroupsManager) Get(subsystem, handle, name string) (string, error) {
	body, err := os.ReadFile(path.Join(m.SubsystemPath(subsystem, handle), name))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(body)), nil
}

func (m *CgroupsManager) SubsystemPath(subsystem, handle string) string {
	return path.Join(m.cgroupsPath, subsystem, "bootstrap-"+handle)
}

func (m *CgroupsManager) memberPIDs(subsystem, handle string) ([]int, error) {
	body, err := os.ReadFile(path.Join(m.SubsystemPath(subsystem, handle), "cgroup.procs"))
	if err != nil {
		return nil, err
	}

	var pids []int
	for _, line := range strings.Fields(string(body)) {
		pid, err := strconv.Atoi(line)
		if err != nil {
			continue
		}

		pids = append(pids, pid)
	}

	return pids, nil
}
