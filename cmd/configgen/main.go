package main

import (
	"flag"
	"log"

	"github.com/danmuck/touch2tuio/internal/config"
)

const defaultPath = "touch2tuio.toml"

func main() {
	output := flag.String("output", defaultPath, "output path for the settings template")
	validate := flag.Bool("validate", false, "validate an existing settings file")
	input := flag.String("input", defaultPath, "settings path for validation")
	force := flag.Bool("force", false, "overwrite an existing settings file")
	flag.Parse()

	if *validate {
		s, err := config.Load(*input)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated settings at %s (udp %s:%d/%d, xml :%d)",
			*input, s.Network.Host, s.Network.UDPOnePort, s.Network.UDPTwoPort, s.Network.XMLPort)
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote settings template to %s", *output)
}
