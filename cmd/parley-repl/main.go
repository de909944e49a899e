// Command parley-repl runs a single conversation session on stdin and
// stdout, bypassing the HTTP server. Useful for trying out backends
// and inspecting session signals interactively.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"parley/internal/backend"
	"parley/internal/engine"
	"parley/internal/memory"
	"parley/internal/topics"
)

func main() {
	provider := flag.String("provider", "auto", "generation backend: openai|ollama|mock|auto")
	model := flag.String("model", "", "override the backend model name")
	archiveDir := flag.String("archive-dir", "conversations", "directory for saved sessions")
	topic := flag.String("topic", "", "open with a starter from this topic")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("dotenv: %v", err)
	}

	cfg := backend.Config{
		Provider:      *provider,
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:   os.Getenv("OPENAI_MODEL"),
		OllamaBaseURL: os.Getenv("OLLAMA_BASE_URL"),
		OllamaModel:   os.Getenv("OLLAMA_MODEL"),
	}
	if *model != "" {
		cfg.OpenAIModel = *model
		cfg.OllamaModel = *model
	}

	generator, err := backend.New(cfg)
	if err != nil {
		log.Fatalf("backend init failed: %v", err)
	}
	fmt.Printf("backend: %s\n", generator.Name())

	archive, err := memory.NewFileArchive(*archiveDir)
	if err != nil {
		log.Fatalf("archive init failed: %v", err)
	}

	eng := engine.New(generator, nil)
	ctx := context.Background()

	if *topic != "" {
		starter, err := topics.RandomStarter(*topic)
		if err != nil {
			log.Fatalf("unknown topic %q (known: %s)", *topic, strings.Join(topics.Slugs(), ", "))
		}
		eng.Prime(starter)
		fmt.Printf("partner> %s\n", starter)
	}

	fmt.Println("type a message, or /context /stats /save /clear /quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := runCommand(ctx, eng, archive, line); quit {
				return
			}
			continue
		}

		reply, err := eng.Respond(ctx, line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		fmt.Printf("partner> %s\n", reply)
	}
}

func runCommand(ctx context.Context, eng *engine.Engine, archive *memory.FileArchive, line string) bool {
	switch line {
	case "/quit", "/exit":
		return true
	case "/context":
		printJSON(eng.ContextSummary())
	case "/stats":
		printJSON(eng.Stats())
	case "/clear":
		eng.Clear()
		fmt.Println("conversation cleared")
	case "/save":
		id := fmt.Sprintf("repl-%d", os.Getpid())
		if err := eng.SaveTo(ctx, archive, id); err != nil {
			fmt.Printf("save failed: %v\n", err)
			break
		}
		fmt.Printf("saved session %s\n", id)
	default:
		fmt.Println("commands: /context /stats /save /clear /quit")
	}
	return false
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("encode error: %v\n", err)
		return
	}
	fmt.Println(string(out))
}
