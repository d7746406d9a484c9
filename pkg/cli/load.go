package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/adfharrison1/neemo/pkg/config"
)

// loadUser is the document inserted by the load command
type loadUser struct {
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Email string `json:"email"`
}

type loadStats struct {
	Attempted int
	Succeeded int64
	Failed    int64
	Elapsed   time.Duration
}

func newLoadCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <number_of_users>",
		Short: "Insert random user documents into a running server",
		Long: `Insert random user documents through the REST API of a running neemo
server and report the achieved insert rate. Documents are stored under
the keys user-0, user-1, ...`,
		Args:    cobra.ExactArgs(1),
		PreRunE: bindFlags(v),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid number of users %q: must be a positive integer", args[0])
			}
			stats, err := runLoad(cmd.Context(), http.DefaultClient, strings.TrimRight(v.GetString("url"), "/"),
				n, v.GetInt("threads"), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			printLoadStats(cmd.OutOrStdout(), stats)
			if stats.Failed > 0 {
				return fmt.Errorf("%d errors occurred during the load test", stats.Failed)
			}
			return nil
		},
	}

	key := "url"
	cmd.Flags().String(key, "http://localhost:8080", config.WrapString("Base URL of the neemo server"))

	key = "threads"
	cmd.Flags().Int(key, 4, config.WrapString("Number of concurrent clients"))
	return cmd
}

func randomName(r *rand.Rand) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	name := make([]byte, 6)
	for i := range name {
		name[i] = letters[r.Intn(len(letters))]
	}
	name[0] -= 'a' - 'A'
	return string(name)
}

func insertUser(ctx context.Context, client *http.Client, baseURL, key string, user loadUser) error {
	body, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, baseURL+"/documents/"+key, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

// runLoad inserts n random users using threads concurrent clients,
// reporting progress every tenth of the run.
func runLoad(ctx context.Context, client *http.Client, baseURL string, n, threads int, out io.Writer) (loadStats, error) {
	if threads <= 0 {
		threads = 1
	}
	fmt.Fprintf(out, "Starting load test: inserting %d users to %s\n", n, baseURL)

	stats := loadStats{Attempted: n}
	reportEvery := max(1, n/10)
	var outMu sync.Mutex

	jobs := make(chan int)
	var wg sync.WaitGroup
	start := time.Now()
	for w := 0; w < threads; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed))
			for i := range jobs {
				name := randomName(r)
				user := loadUser{Name: name, Age: r.Intn(82) + 18, Email: strings.ToLower(name) + "@example.com"}
				err := insertUser(ctx, client, baseURL, fmt.Sprintf("user-%d", i), user)

				outMu.Lock()
				if err != nil {
					stats.Failed++
					fmt.Fprintf(out, "Error inserting user %d (%s): %v\n", i, name, err)
				} else {
					stats.Succeeded++
				}
				if d := stats.Succeeded + stats.Failed; d%int64(reportEvery) == 0 || d == int64(n) {
					rate := float64(d) / time.Since(start).Seconds()
					fmt.Fprintf(out, "Progress: %d/%d users (%.1f%%) - Rate: %.1f users/sec\n",
						d, n, float64(d)/float64(n)*100, rate)
				}
				outMu.Unlock()
			}
		}(time.Now().UnixNano() + int64(w))
	}

	var err error
feed:
	for i := 0; i < n; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	stats.Elapsed = time.Since(start)
	return stats, err
}

func printLoadStats(out io.Writer, stats loadStats) {
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "Total users attempted: %d\n", stats.Attempted)
	fmt.Fprintf(out, "Successful inserts:    %d\n", stats.Succeeded)
	fmt.Fprintf(out, "Failed inserts:        %d\n", stats.Failed)
	fmt.Fprintf(out, "Total time:            %v\n", stats.Elapsed)
	if secs := stats.Elapsed.Seconds(); secs > 0 {
		fmt.Fprintf(out, "Average rate:          %.2f users/sec\n", float64(stats.Attempted)/secs)
	}
}
