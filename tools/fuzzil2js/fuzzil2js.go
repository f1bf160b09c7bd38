// Copyright 2025 fuzzilli project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// fuzzil2js converts one serialized program into a JavaScript script on stdout.
package main

import (
	"flag"
	"os"

	"github.com/JJHPhoto/fuzzilli/pkg/lifter"
	"github.com/JJHPhoto/fuzzilli/pkg/log"
	"github.com/JJHPhoto/fuzzilli/prog"
)

func main() {
	var (
		flagPrefix = flag.String("prefix", "", "file with text to emit before the program body")
		flagSuffix = flag.String("suffix", "", "file with text to emit after the program body")
		flagInline = flag.Bool("inline", false, "inline pure single-use expressions")
		flagES     = flag.Int("es", int(lifter.ES2015), "target ECMAScript edition (2015, 2016, 2020)")
	)
	flag.Parse()
	if len(flag.Args()) != 1 {
		log.Fatalf("usage: fuzzil2js [flags] program.fzil")
	}
	data, err := os.ReadFile(flag.Args()[0])
	if err != nil {
		log.Fatalf("failed to read program file: %v", err)
	}
	p, err := prog.Deserialize(data)
	if err != nil {
		log.Fatalf("failed to deserialize the program: %v", err)
	}
	opts := lifter.Options{
		Inline:  *flagInline,
		Version: lifter.ESVersion(*flagES),
	}
	opts.Prefix = readOptional(*flagPrefix)
	opts.Suffix = readOptional(*flagSuffix)
	js, err := lifter.NewJS(opts)
	if err != nil {
		log.Fatalf("%v", err)
	}
	out, err := js.Lift(p)
	if err != nil {
		log.Fatalf("failed to lift the program: %v", err)
	}
	os.Stdout.Write(out)
}

func readOptional(file string) string {
	if file == "" {
		return ""
	}
	data, err := os.ReadFile(file)
	if err != nil {
		log.Fatalf("failed to read %v: %v", file, err)
	}
	return string(data)
}
