package testutil

import "golang.org/x/tools/txtar"

// ParseFiles reads a txtar archive into the plain filename→contents map
// NewMultiFileEnv wants. Multi-file fixtures (an import graph spanning
// several .ts files) are far more readable as one archive literal than as
// several Go string constants threaded through a map[string]string by hand.
func ParseFiles(archive string) map[string]string {
	a := txtar.Parse([]byte(archive))
	files := make(map[string]string, len(a.Files))
	for _, f := range a.Files {
		files[f.Name] = string(f.Data)
	}
	return files
}
