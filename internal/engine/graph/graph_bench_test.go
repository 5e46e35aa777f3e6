package graph

import (
	"fmt"
	"testing"
)

func BenchmarkUpdateImportMap(b *testing.B) {
	maps := make([]ImportMap, 100)
	for i := range maps {
		src := fmt.Sprintf("/p/file%d.ts", i)
		d := NewImportDetails()
		d.AddImport(fmt.Sprintf("Func%d", i), src)
		d.AddImportNs("ns", src)
		maps[i] = ImportMap{fmt.Sprintf("/p/file%d.ts", (i+1)%100): d}
	}

	g := NewGraph()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.UpdateImportMap(fmt.Sprintf("/p/file%d.ts", i%100), maps[i%100])
	}
}
