package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"mobileprice/ml"
)

func main() {
	out := flag.String("out", ml.DefaultModelPath, "artifact output path")
	check := flag.String("check", "", "load this artifact and predict the default inputs instead of writing")
	flag.Parse()

	if *check != "" {
		label, err := checkArtifact(*check)
		if err != nil {
			log.Fatalf("artifact check failed: %v", err)
		}
		fmt.Printf("%s loads against %s; default inputs predict %s\n", *check, ml.FeatureSchemaVersion, label)
		return
	}

	if dir := filepath.Dir(*out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("failed to create model dir: %v", err)
		}
	}
	if err := BaselineArtifact().Save(*out); err != nil {
		log.Fatalf("failed to save model: %v", err)
	}
	fmt.Printf("baseline model saved to %s\n", *out)
}

func checkArtifact(path string) (string, error) {
	model, err := ml.NewLoader(path, ml.ModelTypeAuto).Load()
	if err != nil {
		return "", err
	}
	class, err := ml.Predict(model, ml.Encode(ml.DefaultRawInputs()))
	if err != nil {
		return "", err
	}
	return class.Label(), nil
}
