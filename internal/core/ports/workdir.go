package ports

// Workdir scopes changes of the process working directory.
//
//go:generate mockgen -source=workdir.go -destination=mocks/mock_workdir.go -package=mocks
type Workdir interface {
	// Within runs fn with the working directory set to dir and always restores it.
	Within(dir string, fn func() error) error
}
