package domain

// Department is one of the fixed crew disciplines a job can be staffed by.
type Department string

const (
	DepartmentSound  Department = "sound"
	DepartmentLights Department = "lights"
	DepartmentVideo  Department = "video"
)

// Departments lists every known department in display order.
var Departments = []Department{DepartmentSound, DepartmentLights, DepartmentVideo}

// Valid reports whether d is one of the known departments.
func (d Department) Valid() bool {
	for _, known := range Departments {
		if d == known {
			return true
		}
	}
	return false
}
