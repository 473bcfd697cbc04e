package roles

// Role is a named grouping of permission codes. A role may imply other
// roles; the implied roles' permissions are folded into its resolved set.
type Role struct {
	Code        string   `yaml:"code"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
	Implies     []string `yaml:"implies"`
}
