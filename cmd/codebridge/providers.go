package main

// Engine backend blank imports: each import registers an analysis backend
// by name. Add new backends here.

import (
	_ "github.com/Strob0t/codebridge/internal/adapter/goengine"
	_ "github.com/Strob0t/codebridge/internal/adapter/lsp"
)
