// Command coresim is a thin reference driver wiring pkg/irom, pkg/dram,
// pkg/decoder, pkg/cpu and pkg/diag together, the way the teacher's
// cmd/vm wires pkg/vm. It is informative only (spec.md §1, §6 "CLI /
// driver"): the image loader and command-line driver are explicitly
// out of scope for the core itself.
package main

import (
	"errors"
	"log"
	"os"

	"github.com/pborman/getopt/v2"

	"github.com/rv32sim/rv32sim/pkg/cpu"
	"github.com/rv32sim/rv32sim/pkg/decoder"
	"github.com/rv32sim/rv32sim/pkg/diag"
)

func main() {
	log.SetFlags(0)

	userFile := getopt.StringLong("user", 'u', "", "user (text) image file")
	kernelFile := getopt.StringLong("kernel", 'k', "", "trap-handler image file")
	userBase := getopt.Uint32Long("user-base", 0, 0x0000_0000, "user image base address")
	kernelBase := getopt.Uint32Long("kernel-base", 0, 0x1C09_0000, "kernel image base address")
	stackBase := getopt.Uint32Long("stack-base", 0, 0x7FFF_0000, "stack segment base address")
	stackSize := getopt.Uint32Long("stack-size", 0, 1<<16, "stack segment size in bytes")
	verbose := getopt.BoolLong("verbose", 'v', "trace every fetch/execute cycle")
	getopt.Parse()

	if *userFile == "" || *kernelFile == "" {
		log.Fatal("usage: coresim -u <user.bin> -k <trap.bin> [-v]")
	}

	userImage, err := os.ReadFile(*userFile)
	if err != nil {
		log.Fatal(err)
	}
	kernelImage, err := os.ReadFile(*kernelFile)
	if err != nil {
		log.Fatal(err)
	}

	c := cpu.New(cpu.Config{
		UserImage:   userImage,
		UserBase:    *userBase,
		KernelImage: kernelImage,
		KernelBase:  *kernelBase,
		StackBase:   *stackBase,
		StackSize:   *stackSize,
	})

	for {
		word, err := c.Fetch()
		if err != nil {
			log.Fatal(err)
		}
		c.PCStep()
		if *verbose {
			if inst, derr := decoder.Decode(word); derr == nil {
				log.Printf("coresim: 0x%08x  %s", word, diag.Disassemble(inst))
			}
			log.Print(diag.Dump(c))
		}
		wb, err := c.Execute(word)
		if err != nil {
			if errors.Is(err, cpu.ErrEretStop) {
				log.Printf("coresim: eret at pc=0x%08x, resuming", c.PC())
				continue
			}
			log.Fatal(err)
		}
		log.Printf("coresim: %s", wb)
	}
}
