// dictsh is an interactive CLI for the incremental-rehash dictionary.
//
// Usage:
//
//	dictsh [flags]
//
// Flags:
//
//	-c, --config      Config file in JSON/JSONC format (default: .dictsh.json if present)
//	-s, --seed        Hash seed (default: random)
//	-f, --fold-case   Treat keys case-insensitively
//	-b, --bench       Run the benchmark with N keys and exit
//
// Commands (in REPL):
//
//	set <key> <value>      Insert or update an entry
//	add <key> <value>      Insert an entry, failing if the key exists
//	get <key>              Look up an entry
//	del <key>              Delete an entry
//	unlink <key>           Detach an entry and show it before freeing
//	exists <key>           Check for a key
//	keys [limit]           List entries via a safe iterator
//	scan [limit]           List entries via the cursor walk
//	random                 Draw a random entry
//	fair                   Draw a random entry with fairer distribution
//	some <n>               Sample up to n entries
//	len                    Count entries
//	info                   Show dictionary state
//	stats                  Show hash table statistics
//	rehash <n>             Migrate up to n buckets by hand
//	rehashfor <ms>         Migrate in batches under a time budget
//	expand <n>             Grow capacity to at least n buckets
//	tryexpand <n>          Like expand, reporting allocation failures
//	resize                 Shrink capacity to fit the current size
//	resize-on / resize-off Toggle automatic resizing
//	fill <count> [prefix]  Insert count generated entries
//	bench <count>          Benchmark core operations and write a report
//	empty                  Remove every entry
//	help                   Show this help
//	exit / quit / q        Exit
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bdragon300/incremental-rehash/dict"
	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
)

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := flag.NewFlagSet("dictsh", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.StringP("config", "c", "", "config file in JSON/JSONC format")
	seed := fs.Uint64P("seed", "s", 0, "hash seed, 0 picks a random one")
	foldCase := fs.BoolP("fold-case", "f", false, "treat keys case-insensitively")
	benchCount := fs.IntP("bench", "b", 0, "run the benchmark with this many keys and exit")

	err := fs.Parse(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Println("Usage: dictsh [flags]")
			fmt.Println()
			fmt.Print(fs.FlagUsages())

			return nil
		}

		return fmt.Errorf("parsing flags: %w", err)
	}

	cfg, cfgPath, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	// CLI flags win over the config file.
	if fs.Changed("seed") {
		cfg.Seed = *seed
	}
	if fs.Changed("fold-case") {
		cfg.FoldCase = *foldCase
	}

	seedVal := cfg.Seed
	if seedVal == 0 {
		seedVal = dict.RandomSeed()
	}

	tp := dict.StringType(seedVal)
	if cfg.FoldCase {
		tp = dict.CaseInsensitiveStringType(seedVal)
	}
	d := dict.New(tp, nil)

	if *benchCount > 0 {
		return runBench(d, *benchCount, cfg.ReportDir)
	}

	if cfgPath != "" {
		fmt.Printf("Loaded config from %s\n", cfgPath)
	}

	repl := &REPL{
		d:        d,
		cfg:      cfg,
		seed:     seedVal,
		resizeOn: true,
	}

	return repl.Run()
}

// REPL drives the interactive session over a single dictionary.
type REPL struct {
	d        *dict.Dict
	cfg      Config
	seed     uint64
	resizeOn bool
	fillSeq  int64
	liner    *liner.State
}

// historyFile returns the path to the history file.
func historyFile(cfg Config) string {
	if cfg.HistoryFile != "" {
		return cfg.HistoryFile
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".dictsh_history")
}

// Run starts the REPL loop.
func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile(r.cfg)); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("dictsh - incremental rehash dictionary CLI (seed=%d, fold_case=%v)\n", r.seed, r.cfg.FoldCase)
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt(r.cfg.Prompt)
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")

				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")

			r.saveHistory()

			return nil

		case "help", "?":
			r.printHelp()

		case "set":
			r.cmdSet(args)

		case "add":
			r.cmdAdd(args)

		case "get":
			r.cmdGet(args)

		case "del", "delete":
			r.cmdDelete(args)

		case "unlink":
			r.cmdUnlink(args)

		case "exists":
			r.cmdExists(args)

		case "keys", "ls", "list":
			r.cmdKeys(args)

		case "scan":
			r.cmdScan(args)

		case "random":
			r.cmdRandom()

		case "fair":
			r.cmdFair()

		case "some":
			r.cmdSome(args)

		case "len", "count":
			r.cmdLen()

		case "info":
			r.cmdInfo()

		case "stats":
			r.cmdStats()

		case "rehash":
			r.cmdRehash(args)

		case "rehashfor":
			r.cmdRehashFor(args)

		case "expand":
			r.cmdExpand(args, false)

		case "tryexpand":
			r.cmdExpand(args, true)

		case "resize":
			r.cmdResize()

		case "resize-on":
			r.d.EnableResize()
			r.resizeOn = true
			fmt.Println("OK: automatic resizing enabled")

		case "resize-off":
			r.d.DisableResize()
			r.resizeOn = false
			fmt.Println("OK: automatic resizing disabled")

		case "fill":
			r.cmdFill(args)

		case "bench":
			r.cmdBench(args)

		case "empty":
			r.cmdEmpty()

		case "clear", "cls":
			fmt.Print("\033[H\033[2J")

		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()

	return nil
}

// saveHistory persists command history to disk.
func (r *REPL) saveHistory() {
	if path := historyFile(r.cfg); path != "" {
		if f, err := os.Create(path); err == nil {
			r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

// completer provides tab completion for commands.
func (r *REPL) completer(line string) []string {
	commands := []string{
		"set", "add", "get", "del", "delete",
		"unlink", "exists", "keys", "ls", "list",
		"scan", "random", "fair", "some",
		"len", "count", "info", "stats",
		"rehash", "rehashfor", "expand", "tryexpand",
		"resize", "resize-on", "resize-off",
		"fill", "bench", "empty", "clear", "cls",
		"help", "exit", "quit", "q",
	}

	var completions []string

	lower := strings.ToLower(line)
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, lower) {
			completions = append(completions, cmd)
		}
	}

	return completions
}

func (r *REPL) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  set <key> <value>      Insert or update an entry")
	fmt.Println("  add <key> <value>      Insert an entry, failing if the key exists")
	fmt.Println("  get <key>              Look up an entry")
	fmt.Println("  del <key>              Delete an entry")
	fmt.Println("  unlink <key>           Detach an entry and show it before freeing")
	fmt.Println("  exists <key>           Check for a key")
	fmt.Println("  keys [limit]           List entries via a safe iterator")
	fmt.Println("  scan [limit]           List entries via the cursor walk")
	fmt.Println("  random                 Draw a random entry")
	fmt.Println("  fair                   Draw a random entry with fairer distribution")
	fmt.Println("  some <n>               Sample up to n entries")
	fmt.Println("  len                    Count entries")
	fmt.Println("  info                   Show dictionary state")
	fmt.Println("  stats                  Show hash table statistics")
	fmt.Println("  rehash <n>             Migrate up to n buckets by hand")
	fmt.Println("  rehashfor <ms>         Migrate in batches under a time budget")
	fmt.Println("  expand <n>             Grow capacity to at least n buckets")
	fmt.Println("  tryexpand <n>          Like expand, reporting allocation failures")
	fmt.Println("  resize                 Shrink capacity to fit the current size")
	fmt.Println("  resize-on / resize-off Toggle automatic resizing")
	fmt.Println("  fill <count> [prefix]  Insert count generated entries")
	fmt.Println("  bench <count>          Benchmark core operations and write a report")
	fmt.Println("  empty                  Remove every entry")
	fmt.Println("  help                   Show this help")
	fmt.Println("  exit / quit / q        Exit")
	fmt.Println()
	fmt.Println("Values parse as integers or floats when possible, otherwise they")
	fmt.Println("are stored as text.")
}

// setAuto stores s in the entry's value slot, picking the numeric kinds for
// inputs that parse as numbers.
func setAuto(d *dict.Dict, e *dict.Entry, s string) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		e.SetInt64(i)

		return
	}

	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		e.SetUint64(u)

		return
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		e.SetFloat64(f)

		return
	}

	d.SetValue(e, s)
}

func formatValue(e *dict.Entry) string {
	switch e.Kind() {
	case dict.ValueUint64:
		return strconv.FormatUint(e.Uint64(), 10)
	case dict.ValueInt64:
		return strconv.FormatInt(e.Int64(), 10)
	case dict.ValueFloat64:
		return strconv.FormatFloat(e.Float64(), 'g', -1, 64)
	case dict.ValuePointer:
		return fmt.Sprintf("%v", e.Value())
	default:
		return "<unset>"
	}
}

func kindName(k dict.ValueKind) string {
	switch k {
	case dict.ValueUint64:
		return "u64"
	case dict.ValueInt64:
		return "i64"
	case dict.ValueFloat64:
		return "f64"
	case dict.ValuePointer:
		return "ptr"
	default:
		return "none"
	}
}

func (r *REPL) cmdSet(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: set <key> <value>")

		return
	}

	key := args[0]
	existed := r.d.Find(key) != nil
	setAuto(r.d, r.d.AddOrFind(key), strings.Join(args[1:], " "))

	if existed {
		fmt.Println("OK (updated)")
	} else {
		fmt.Println("OK (inserted)")
	}
}

func (r *REPL) cmdAdd(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: add <key> <value>")

		return
	}

	key := args[0]
	if r.d.Find(key) != nil {
		fmt.Printf("Error: key %q already exists\n", key)

		return
	}

	setAuto(r.d, r.d.AddOrFind(key), strings.Join(args[1:], " "))
	fmt.Println("OK (inserted)")
}

func (r *REPL) cmdGet(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: get <key>")

		return
	}

	e := r.d.Find(args[0])
	if e == nil {
		fmt.Println("(not found)")

		return
	}

	fmt.Printf("%v = %s (%s)\n", e.Key(), formatValue(e), kindName(e.Kind()))
}

func (r *REPL) cmdDelete(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: del <key>")

		return
	}

	err := r.d.Delete(args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Println("OK")
}

func (r *REPL) cmdUnlink(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: unlink <key>")

		return
	}

	e, err := r.d.Unlink(args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Printf("OK: detached %v = %s\n", e.Key(), formatValue(e))
	r.d.FreeUnlinkedEntry(e)
}

func (r *REPL) cmdExists(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: exists <key>")

		return
	}

	if r.d.Find(args[0]) != nil {
		fmt.Println("yes")
	} else {
		fmt.Println("no")
	}
}

func (r *REPL) cmdKeys(args []string) {
	limit := 0

	if len(args) >= 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			fmt.Println("Error: limit must be a positive integer")

			return
		}

		limit = n
	}

	it := r.d.SafeIterator()
	shown, total := 0, 0

	for e := it.Next(); e != nil; e = it.Next() {
		total++
		if limit == 0 || shown < limit {
			fmt.Printf("  %v = %s\n", e.Key(), formatValue(e))
			shown++
		}
	}
	it.Release()

	if limit > 0 && total > shown {
		fmt.Printf("  ... %d more\n", total-shown)
	}

	fmt.Printf("OK: %d entries\n", total)
}

func (r *REPL) cmdScan(args []string) {
	limit := 0

	if len(args) >= 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			fmt.Println("Error: limit must be a positive integer")

			return
		}

		limit = n
	}

	var (
		cursor uint64
		calls  int
		shown  int
		total  int
	)

	for {
		cursor = r.d.Scan(cursor, func(e *dict.Entry) {
			total++
			if limit == 0 || shown < limit {
				fmt.Printf("  %v = %s\n", e.Key(), formatValue(e))
				shown++
			}
		})
		calls++

		if cursor == 0 {
			break
		}
	}

	if limit > 0 && total > shown {
		fmt.Printf("  ... %d more\n", total-shown)
	}

	fmt.Printf("OK: %d entries in %d scan calls\n", total, calls)
}

func (r *REPL) cmdRandom() {
	e := r.d.RandomKey()
	if e == nil {
		fmt.Println("(empty)")

		return
	}

	fmt.Printf("%v = %s\n", e.Key(), formatValue(e))
}

func (r *REPL) cmdFair() {
	e := r.d.FairRandomKey()
	if e == nil {
		fmt.Println("(empty)")

		return
	}

	fmt.Printf("%v = %s\n", e.Key(), formatValue(e))
}

func (r *REPL) cmdSome(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: some <n>")

		return
	}

	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		fmt.Println("Error: n must be a positive integer")

		return
	}

	entries := r.d.SomeKeys(n)
	for _, e := range entries {
		fmt.Printf("  %v = %s\n", e.Key(), formatValue(e))
	}

	fmt.Printf("OK: sampled %d entries\n", len(entries))
}

func (r *REPL) cmdLen() {
	fmt.Printf("%d\n", r.d.Len())
}

func (r *REPL) cmdInfo() {
	fmt.Printf("seed:        %d\n", r.seed)
	fmt.Printf("fold_case:   %v\n", r.cfg.FoldCase)
	fmt.Printf("entries:     %d\n", r.d.Len())
	fmt.Printf("slots:       %d\n", r.d.Slots())
	fmt.Printf("rehashing:   %v\n", r.d.Rehashing())
	fmt.Printf("auto-resize: %v\n", r.resizeOn)
}

func (r *REPL) cmdStats() {
	fmt.Print(r.d.Stats())
}

func (r *REPL) cmdRehash(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: rehash <n>")

		return
	}

	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		fmt.Println("Error: n must be a positive integer")

		return
	}

	if r.d.Rehash(n) {
		fmt.Println("OK: more buckets remain")
	} else {
		fmt.Println("OK: no migration pending")
	}
}

func (r *REPL) cmdRehashFor(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: rehashfor <ms>")

		return
	}

	ms, err := strconv.Atoi(args[0])
	if err != nil || ms < 1 {
		fmt.Println("Error: ms must be a positive integer")

		return
	}

	moved := r.d.RehashFor(time.Duration(ms) * time.Millisecond)
	fmt.Printf("OK: migrated about %d buckets, rehashing=%v\n", moved, r.d.Rehashing())
}

func (r *REPL) cmdExpand(args []string, try bool) {
	if len(args) < 1 {
		fmt.Println("Usage: expand <n>")

		return
	}

	n, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || n < 1 {
		fmt.Println("Error: n must be a positive integer")

		return
	}

	if try {
		err = r.d.TryExpand(n)
	} else {
		err = r.d.Expand(n)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Printf("OK: slots=%d, rehashing=%v\n", r.d.Slots(), r.d.Rehashing())
}

func (r *REPL) cmdResize() {
	err := r.d.Resize()
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Printf("OK: slots=%d, rehashing=%v\n", r.d.Slots(), r.d.Rehashing())
}

func (r *REPL) cmdFill(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: fill <count> [prefix]")

		return
	}

	count, err := strconv.Atoi(args[0])
	if err != nil || count < 1 {
		fmt.Println("Error: count must be a positive integer")

		return
	}

	prefix := "key:"
	if len(args) >= 2 {
		prefix = args[1]
	}

	start := time.Now()

	for i := 0; i < count; i++ {
		r.fillSeq++
		key := fmt.Sprintf("%s%d", prefix, r.fillSeq)
		r.d.AddOrFind(key).SetInt64(r.fillSeq)
	}

	elapsed := time.Since(start)
	rate := float64(count) / elapsed.Seconds()
	fmt.Printf("OK: inserted %d entries in %v (%.0f ops/sec)\n", count, elapsed.Round(time.Millisecond), rate)
}

func (r *REPL) cmdBench(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: bench <count>")

		return
	}

	count, err := strconv.Atoi(args[0])
	if err != nil || count < 1 {
		fmt.Println("Error: count must be a positive integer")

		return
	}

	err = runBench(r.d, count, r.cfg.ReportDir)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
	}
}

func (r *REPL) cmdEmpty() {
	n := r.d.Len()
	r.d.Empty(nil)
	fmt.Printf("OK: removed %d entries\n", n)
}
