package interfaces

// Service interface defines the methods that every kind of interface exposed
// by the daemon must be compliant with.
type Service interface {
	Start() error
	Stop()
}
