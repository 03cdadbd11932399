package model

// TestCase is one input with the output a correct program prints for it.
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
}
