// Package hello provides the greeting shipped by the packaged library.
package hello

const greetingConstant = "Hello, World!"

// Hello produces greetings.
type Hello struct{}

// HelloWorld returns the canonical greeting.
func (Hello) HelloWorld() string {
	return greetingConstant
}
