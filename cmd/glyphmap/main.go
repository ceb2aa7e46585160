package main

import (
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"glyphmap/internal/config"
	"glyphmap/internal/tui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	// stdout belongs to the UI
	f, err := tea.LogToFile(cfg.LogFile, "glyphmap")
	if err != nil {
		fmt.Fprintln(os.Stderr, "log file:", err)
		os.Exit(1)
	}
	defer f.Close()
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	m := tui.NewWithPaths(cfg, os.Args[1:]...)
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion()).Run(); err != nil {
		log.Fatal(err)
	}
}
