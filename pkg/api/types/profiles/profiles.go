package profiles

import "github.com/poselab/dispatchd/pkg/domain"

type Detail struct {
	ProfileId  int      `json:"profileId"`
	Name       string   `json:"name"`
	MemoryGB   int      `json:"memoryGB"`
	TimeHours  int      `json:"timeHours"`
	CPUs       int      `json:"cpus"`
	Partitions []string `json:"partitions"`
}

func (d Detail) Equal(o Detail) bool {
	if len(d.Partitions) != len(o.Partitions) {
		return false
	}
	for i := range d.Partitions {
		if d.Partitions[i] != o.Partitions[i] {
			return false
		}
	}
	return d.ProfileId == o.ProfileId &&
		d.Name == o.Name &&
		d.MemoryGB == o.MemoryGB &&
		d.TimeHours == o.TimeHours &&
		d.CPUs == o.CPUs
}

func ComposeDetail(profile domain.RuntimeProfile) Detail {
	return Detail{
		ProfileId:  profile.Id,
		Name:       profile.Name,
		MemoryGB:   profile.MemoryGB,
		TimeHours:  profile.TimeHours,
		CPUs:       profile.CPUs,
		Partitions: profile.Partitions,
	}
}

// RegisterRequest is the POST body of a profile registration.
type RegisterRequest struct {
	Name       string   `json:"name"`
	MemoryGB   int      `json:"memoryGB"`
	TimeHours  int      `json:"timeHours"`
	CPUs       int      `json:"cpus"`
	Partitions []string `json:"partitions"`
}
