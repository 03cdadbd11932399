// Package profile describes the languages the sandbox knows how to build and run.
package profile

import "strings"

// LanguageSpec defines how one language is compiled and executed.
// Command templates are split with shell quoting rules and may reference
// {src}, {bin} and {dir}, which expand to absolute paths inside the workspace.
type LanguageSpec struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	SourceFile     string   `yaml:"sourceFile"`
	BinaryFile     string   `yaml:"binaryFile"`
	CompileEnabled bool     `yaml:"compileEnabled"`
	CompileCmdTpl  string   `yaml:"compileCmd"`
	RunCmdTpl      string   `yaml:"runCmd"`
	VersionCmd     string   `yaml:"versionCmd"`
	Env            []string `yaml:"env"`
}

// DefaultLanguages returns the built-in python, cpp and java entries.
func DefaultLanguages() []LanguageSpec {
	return []LanguageSpec{
		{
			ID:         "python",
			Name:       "Python 3",
			SourceFile: "main.py",
			RunCmdTpl:  "python3 {src}",
			VersionCmd: "python3 --version",
		},
		{
			ID:             "cpp",
			Name:           "C++",
			SourceFile:     "main.cpp",
			BinaryFile:     "main.out",
			CompileEnabled: true,
			CompileCmdTpl:  "g++ {src} -o {bin}",
			RunCmdTpl:      "{bin}",
			VersionCmd:     "g++ --version",
		},
		{
			ID:             "java",
			Name:           "Java",
			SourceFile:     "Main.java",
			CompileEnabled: true,
			CompileCmdTpl:  "javac {src}",
			RunCmdTpl:      "java -cp {dir} Main",
			VersionCmd:     "java -version",
		},
	}
}

// Normalize fills derivable fields and lower-cases the id.
func (l LanguageSpec) Normalize() LanguageSpec {
	l.ID = strings.ToLower(strings.TrimSpace(l.ID))
	if l.Name == "" {
		l.Name = l.ID
	}
	return l
}
