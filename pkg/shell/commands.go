package shell

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/adfharrison1/neemo/pkg/db"
	"github.com/adfharrison1/neemo/pkg/domain"
	"github.com/adfharrison1/neemo/pkg/query"
)

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, s *Shell, args string) error
}

// commands is filled in init because HELP reads it.
var (
	commands     map[string]command
	commandOrder = []string{
		"INSERT", "GET", "DELETE", "LIST", "QUERY", "RANGE", "SEARCH", "AGGREGATE",
		"BATCH", "EXPORT", "IMPORT", "BACKUP", "RESTORE", "CREATE", "USE",
		"STATUS", "WAIT", "CHECK", "STATS", "HELP", "EXIT", "QUIT",
	}
)

func init() {
	commands = map[string]command{
		"INSERT":    {"INSERT <key>", "then field=value lines, empty line to finish", cmdInsert},
		"GET":       {"GET <key>", "print a document", cmdGet},
		"DELETE":    {"DELETE <key>", "remove a document", cmdDelete},
		"LIST":      {"LIST", "print every key", cmdList},
		"QUERY":     {"QUERY <field> <value>", "documents whose field equals value", cmdQuery},
		"RANGE":     {"RANGE <field> <low> <high>", "documents whose numeric field is in [low, high]", cmdRange},
		"SEARCH":    {"SEARCH <text>", "documents containing every word of text", cmdSearch},
		"AGGREGATE": {"AGGREGATE <field> <sum|count|avg> [WHERE <field> <value>]", "aggregate a field", cmdAggregate},
		"BATCH":     {"BATCH", "then INSERT <key> <json> / DELETE <key> lines, END to finish", cmdBatch},
		"EXPORT":    {"EXPORT <path>", "write every document to a JSON file", cmdExport},
		"IMPORT":    {"IMPORT <path>", "load documents from a JSON export", cmdImport},
		"BACKUP":    {"BACKUP <path>", "copy the database directory", cmdBackup},
		"RESTORE":   {"RESTORE <path>", "replace the database with a backup", cmdRestore},
		"CREATE":    {"CREATE DATABASE <name>", "create a database and switch to it", cmdCreate},
		"USE":       {"USE DATABASE <name>", "switch to an existing database", cmdUse},
		"STATUS":    {"STATUS <op-id>", "show the state of an operation", cmdStatus},
		"WAIT":      {"WAIT", "wait for every submitted operation", cmdWait},
		"CHECK":     {"CHECK", "compare indexes with the stored documents", cmdCheck},
		"STATS":     {"STATS", "print engine, index and queue counters", cmdStats},
		"HELP":      {"HELP", "list commands", cmdHelp},
		"EXIT":      {"EXIT", "leave the shell", cmdExit},
		"QUIT":      {"QUIT", "leave the shell", cmdExit},
	}
}

func usageError(name string) error {
	return domain.Invalidf("usage: %s", commands[name].usage)
}

// oneWord checks that args is a single word.
func oneWord(name, args string) (string, error) {
	word, rest := splitWord(args)
	if word == "" || rest != "" {
		return "", usageError(name)
	}
	return word, nil
}

func cmdInsert(_ context.Context, s *Shell, args string) error {
	key, err := oneWord("INSERT", args)
	if err != nil {
		return err
	}
	d, err := s.active()
	if err != nil {
		return err
	}
	if s.interactive {
		fmt.Fprintln(s.out, "Enter fields in 'field=value' format (empty line to finish):")
	}

	fields := domain.NewFields()
	var bad error
	for _, line := range s.readBlock("Field: ") {
		name, literal, ok := strings.Cut(line, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			bad = firstError(bad, domain.Invalidf("expected field=value, got %q", line))
			continue
		}
		value, err := domain.ParseValue(strings.TrimSpace(literal))
		if err != nil {
			bad = firstError(bad, fmt.Errorf("field %q: %w", name, err))
			continue
		}
		fields.Set(name, value)
	}
	if bad != nil {
		return fmt.Errorf("%q not inserted: %w", key, bad)
	}

	op := d.Insert(key, fields)
	return s.printf("submitted %s", op.ID)
}

func firstError(current, next error) error {
	if current != nil {
		return current
	}
	return next
}

func cmdGet(_ context.Context, s *Shell, args string) error {
	key, err := oneWord("GET", args)
	if err != nil {
		return err
	}
	d, err := s.active()
	if err != nil {
		return err
	}
	doc, err := d.Get(key)
	if err != nil {
		return err
	}
	return s.print(doc)
}

func cmdDelete(_ context.Context, s *Shell, args string) error {
	key, err := oneWord("DELETE", args)
	if err != nil {
		return err
	}
	d, err := s.active()
	if err != nil {
		return err
	}
	op := d.Delete(key)
	return s.printf("submitted %s", op.ID)
}

func cmdList(_ context.Context, s *Shell, args string) error {
	if args != "" {
		return usageError("LIST")
	}
	d, err := s.active()
	if err != nil {
		return err
	}
	keys, err := d.List()
	if err != nil {
		return err
	}
	if keys == nil {
		keys = []string{}
	}
	return s.print(keys)
}

func (s *Shell) printDocuments(docs []*domain.Document) error {
	if docs == nil {
		docs = []*domain.Document{}
	}
	return s.print(docs)
}

func cmdQuery(_ context.Context, s *Shell, args string) error {
	field, literal := splitWord(args)
	if field == "" || literal == "" {
		return usageError("QUERY")
	}
	value, err := domain.ParseValue(literal)
	if err != nil {
		return err
	}
	d, err := s.active()
	if err != nil {
		return err
	}
	docs, err := d.QueryEqual(field, value)
	if err != nil {
		return err
	}
	return s.printDocuments(docs)
}

func cmdRange(_ context.Context, s *Shell, args string) error {
	parts := strings.Fields(args)
	if len(parts) != 3 {
		return usageError("RANGE")
	}
	low, err := parseBound(parts[1])
	if err != nil {
		return err
	}
	high, err := parseBound(parts[2])
	if err != nil {
		return err
	}
	d, err := s.active()
	if err != nil {
		return err
	}
	docs, err := d.QueryRange(parts[0], low, high)
	if err != nil {
		return err
	}
	return s.printDocuments(docs)
}

func parseBound(text string) (float64, error) {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, domain.Invalidf("range bound %q is not a number", text)
	}
	return f, nil
}

func cmdSearch(_ context.Context, s *Shell, args string) error {
	if args == "" {
		return usageError("SEARCH")
	}
	d, err := s.active()
	if err != nil {
		return err
	}
	docs, err := d.Search(args)
	if err != nil {
		return err
	}
	return s.printDocuments(docs)
}

func cmdAggregate(_ context.Context, s *Shell, args string) error {
	field, rest := splitWord(args)
	opName, rest := splitWord(rest)
	if field == "" || opName == "" {
		return usageError("AGGREGATE")
	}
	op, err := query.ParseOp(strings.ToLower(opName))
	if err != nil {
		return err
	}

	var pred query.Predicate
	if rest != "" {
		keyword, cond := splitWord(rest)
		whereField, literal := splitWord(cond)
		if !strings.EqualFold(keyword, "WHERE") || whereField == "" || literal == "" {
			return usageError("AGGREGATE")
		}
		value, err := domain.ParseValue(literal)
		if err != nil {
			return err
		}
		pred = query.Where(whereField, value)
	}

	d, err := s.active()
	if err != nil {
		return err
	}
	res, err := d.Aggregate(field, op, pred)
	if err != nil {
		return err
	}
	return s.print(newAggregateView(res))
}

func cmdBatch(_ context.Context, s *Shell, args string) error {
	if args != "" {
		return usageError("BATCH")
	}
	d, err := s.active()
	if err != nil {
		return err
	}
	if s.interactive {
		fmt.Fprintln(s.out, "Enter INSERT <key> <json> or DELETE <key> lines (END or empty line to finish):")
	}

	lines := s.readBlock("... ", "END")
	mutations := make([]db.Mutation, 0, len(lines))
	for i, line := range lines {
		m, err := parseMutation(line)
		if err != nil {
			return fmt.Errorf("batch not submitted, line %d: %w", i+1, err)
		}
		mutations = append(mutations, m)
	}
	if len(mutations) == 0 {
		return domain.Invalidf("batch is empty")
	}

	op := d.Batch(mutations)
	return s.printf("submitted %s (%d requests)", op.ID, len(mutations))
}

func parseMutation(line string) (db.Mutation, error) {
	verb, rest := splitWord(line)
	key, body := splitWord(rest)
	switch strings.ToUpper(verb) {
	case "INSERT":
		if key == "" || body == "" {
			return db.Mutation{}, domain.Invalidf("expected INSERT <key> <json-object>")
		}
		fields, err := domain.ParseFields([]byte(body))
		if err != nil {
			return db.Mutation{}, err
		}
		return db.InsertMutation(key, fields), nil
	case "DELETE":
		if key == "" || body != "" {
			return db.Mutation{}, domain.Invalidf("expected DELETE <key>")
		}
		return db.DeleteMutation(key), nil
	default:
		return db.Mutation{}, domain.Invalidf("unknown batch request %q", verb)
	}
}

func cmdExport(_ context.Context, s *Shell, args string) error {
	if args == "" {
		return usageError("EXPORT")
	}
	d, err := s.active()
	if err != nil {
		return err
	}
	n, err := d.Export(args)
	if err != nil {
		return err
	}
	return s.printf("exported %d documents to %s", n, args)
}

func cmdImport(_ context.Context, s *Shell, args string) error {
	if args == "" {
		return usageError("IMPORT")
	}
	d, err := s.active()
	if err != nil {
		return err
	}
	op := d.Import(args)
	return s.printf("submitted %s", op.ID)
}

func cmdBackup(ctx context.Context, s *Shell, args string) error {
	if args == "" {
		return usageError("BACKUP")
	}
	d, err := s.active()
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := d.Backup(ctx, args); err != nil {
		return err
	}
	return s.printf("backup of %s written to %s", d.Name(), args)
}

func cmdRestore(ctx context.Context, s *Shell, args string) error {
	if args == "" {
		return usageError("RESTORE")
	}
	d, err := s.active()
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := d.Restore(ctx, args); err != nil {
		return err
	}
	return s.printf("restored %s from %s", d.Name(), args)
}

// databaseName parses "DATABASE <name>".
func databaseName(cmd, args string) (string, error) {
	keyword, name := splitWord(args)
	if !strings.EqualFold(keyword, "DATABASE") || name == "" || strings.ContainsAny(name, " \t") {
		return "", usageError(cmd)
	}
	return name, nil
}

func cmdCreate(_ context.Context, s *Shell, args string) error {
	name, err := databaseName("CREATE", args)
	if err != nil {
		return err
	}
	if _, err := s.mgr.Create(name); err != nil {
		return err
	}
	return s.printf("created database %s", name)
}

func cmdUse(_ context.Context, s *Shell, args string) error {
	name, err := databaseName("USE", args)
	if err != nil {
		return err
	}
	if _, err := s.mgr.Use(name); err != nil {
		return err
	}
	return s.printf("using database %s", name)
}

func cmdStatus(_ context.Context, s *Shell, args string) error {
	id, err := oneWord("STATUS", args)
	if err != nil {
		return err
	}
	d, err := s.active()
	if err != nil {
		return err
	}
	op, ok := d.Operation(id)
	if !ok {
		return domain.NotFoundf("operation %q", id)
	}
	return s.print(op.Status())
}

func cmdWait(ctx context.Context, s *Shell, args string) error {
	if args != "" {
		return usageError("WAIT")
	}
	d, err := s.active()
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := d.Drain(ctx); err != nil {
		return err
	}
	return s.printf("all operations finished")
}

func cmdCheck(_ context.Context, s *Shell, args string) error {
	if args != "" {
		return usageError("CHECK")
	}
	d, err := s.active()
	if err != nil {
		return err
	}
	if err := d.Verify(); err != nil {
		return err
	}
	return s.printf("indexes consistent")
}

func cmdStats(_ context.Context, s *Shell, args string) error {
	if args != "" {
		return usageError("STATS")
	}
	d, err := s.active()
	if err != nil {
		return err
	}
	return s.print(d.Stats())
}

func cmdHelp(_ context.Context, s *Shell, _ string) error {
	for _, name := range commandOrder {
		c := commands[name]
		if _, err := fmt.Fprintf(s.out, "  %-58s %s\n", c.usage, c.help); err != nil {
			return err
		}
	}
	return nil
}

func cmdExit(context.Context, *Shell, string) error {
	return errQuit
}
