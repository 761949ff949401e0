// exitcode.go - Prozess-Exit-Codes fuer die CLI
package exitcode

const (
	Success           = 0
	InvalidArgs       = 2
	FileError         = 3
	FormatError       = 4
	OutOfMemory       = 5
	AcceleratorError  = 6
	Cancelled         = 7
)
