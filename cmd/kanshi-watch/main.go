// Command kanshi-watch provides example usage of the kanshi library.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/carlvoller/kanshi"
	"github.com/carlvoller/kanshi/internal/broadcast"
)

var usage = `
kanshi-watch is an example/debugging tool for the kanshi filesystem-watcher
library.

Usage:

    kanshi-watch [-engine inotify|fanotify|fsevents] [-fs-wide] path...

Flags:

    -engine    force a specific engine instead of the platform default
    -fs-wide   request a filesystem-wide fanotify mark instead of per-directory
`[1:]

func exit(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, filepath.Base(os.Args[0])+": "+format+"\n", a...)
	fmt.Print("\n" + usage)
	os.Exit(1)
}

func help() {
	fmt.Print(usage)
	os.Exit(0)
}

// printTime prints a line prefixed with the time, a bit shorter than
// log.Print since the date isn't useful here.
func printTime(s string, args ...interface{}) {
	fmt.Printf(time.Now().Format("15:04:05.0000")+" "+s+"\n", args...)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		help()
	}

	var opts kanshi.Options
	var paths []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "help", "-h", "-help", "--help":
			help()
		case "-engine":
			i++
			if i >= len(args) {
				exit("-engine requires a value")
			}
			opts.ForceEngine = args[i]
		case "-fs-wide":
			opts.FilesystemWide = true
		default:
			paths = append(paths, args[i])
		}
	}
	if len(paths) == 0 {
		exit("must specify at least one path to watch")
	}

	k, err := kanshi.New(opts)
	if err != nil {
		exit("creating watcher: %s", err)
	}
	defer k.Close()

	sub := k.Subscribe()
	go printLoop(sub)

	for _, p := range paths {
		if err := k.Watch(p); err != nil {
			exit("%q: %s", p, err)
		}
	}

	go func() {
		if err := k.Start(); err != nil {
			printTime("ERROR: %s", err)
		}
	}()

	printTime("ready; press ^C to exit")
	<-make(chan struct{}) // Block forever
}

func printLoop(sub *broadcast.Subscription[kanshi.FileSystemEvent]) {
	i := 0
	for ev := range sub.Events() {
		i++
		printTime("%3d %s", i, ev)
	}
}
