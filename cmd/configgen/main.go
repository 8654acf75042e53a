package main

import (
	"flag"
	"log"

	"github.com/danmuck/pacman/internal/config"
)

func main() {
	kind := flag.String("kind", "codec", "template kind: codec|values")
	output := flag.String("output", "", "output path for the template")
	validate := flag.Bool("validate", false, "validate an existing file")
	input := flag.String("input", "", "path to validate (defaults to the per-kind path)")
	force := flag.Bool("force", false, "overwrite existing file")
	flag.Parse()

	if *validate {
		path := *input
		if path == "" {
			path = defaultPath(*kind)
		}
		switch *kind {
		case "codec":
			if _, err := config.LoadCodecConfig(path); err != nil {
				log.Fatal(err)
			}
		case "values":
			if _, err := config.LoadValues(path); err != nil {
				log.Fatal(err)
			}
		default:
			log.Fatalf("unknown kind: %s", *kind)
		}
		log.Printf("Validated %s file at %s", *kind, path)
		return
	}

	target := *output
	if target == "" {
		target = defaultPath(*kind)
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s template to %s", *kind, target)
}

func defaultPath(kind string) string {
	switch kind {
	case "codec":
		return "cmd/packctl/codec.toml"
	case "values":
		return "cmd/packctl/values.toml"
	default:
		log.Fatalf("unknown kind: %s", kind)
		return ""
	}
}
