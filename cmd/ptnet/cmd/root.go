/*
Copyright © 2024 Jonathan Taylor <jonrtaylor12@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jt05610/ptnet"
	"github.com/jt05610/ptnet/amqp"
	"github.com/jt05610/ptnet/couch"
	"github.com/jt05610/ptnet/env"
	"github.com/jt05610/ptnet/metrics"
	"github.com/jt05610/ptnet/netfile"
	"github.com/jt05610/ptnet/postgres"
	"github.com/jt05610/ptnet/sqlite"
	"github.com/jt05610/ptnet/sqlstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	netFile   string
	machineID string
	envFile   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ptnet",
	Short: "Fire transitions of place/transition nets with a durable history",
	Long: `ptnet loads a net from a YAML file and fires its transitions against a
machine whose history is kept in the store named by PTNET_STORE.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&netFile, "net", "n", "", "net file")
	rootCmd.PersistentFlags().StringVarP(&machineID, "machine", "m", "", "machine id (defaults to the net name)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file (defaults to .env)")
}

// session holds everything a command opens from the environment.
type session struct {
	env       *env.Environment
	logger    *zap.Logger
	net       *ptnet.Net
	sql       *sqlstore.Store
	couch     *couch.Store
	observers []ptnet.Observer
	registry  *prometheus.Registry
	collector *metrics.Collector
	closers   []func() error
}

func open(ctx context.Context, needNet bool) (*session, error) {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	e, err := env.Load(files...)
	if err != nil {
		return nil, err
	}
	logger, err := e.Logger()
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	s := &session{env: e, logger: logger}
	if needNet || netFile != "" {
		if netFile == "" {
			return nil, errors.New("--net is required")
		}
		if s.net, err = netfile.LoadFile(netFile); err != nil {
			return nil, err
		}
	}
	switch e.Store {
	case env.SQLite:
		s.sql, err = sqlite.Open(ctx, e.SQLitePath, logger)
	case env.Postgres:
		s.sql, err = postgres.Open(ctx, e.PostgresDSN, logger)
	case env.Couch:
		s.couch, err = couch.Open(ctx, e.CouchURI, e.CouchDB, logger)
	}
	if err != nil {
		return nil, err
	}
	if s.sql != nil {
		s.closers = append(s.closers, s.sql.Close)
	}
	if s.couch != nil {
		s.closers = append(s.closers, s.couch.Close)
	}
	if e.AMQPURI != "" {
		p, err := amqp.Dial(e.AMQPURI, e.AMQPExchange, logger)
		if err != nil {
			return nil, multierr.Append(err, s.Close())
		}
		s.observers = append(s.observers, p)
		s.closers = append(s.closers, p.Close)
	}
	if e.MetricsFile != "" {
		s.registry = prometheus.NewRegistry()
		c, err := metrics.New(s.registry)
		if err != nil {
			return nil, multierr.Append(err, s.Close())
		}
		s.collector = c
		s.observers = append(s.observers, c)
	}
	return s, nil
}

func (s *session) machineID() (string, error) {
	switch {
	case machineID != "":
		return machineID, nil
	case s.net != nil && s.net.Name() != "":
		return s.net.Name(), nil
	}
	return "", errors.New("--machine is required when the net has no name")
}

func (s *session) history(id string) ptnet.History {
	switch {
	case s.sql != nil:
		return s.sql.History(id)
	case s.couch != nil:
		return s.couch.History(id)
	}
	return ptnet.NewMemoryHistory()
}

func (s *session) machine(ctx context.Context) (*ptnet.Machine, error) {
	id, err := s.machineID()
	if err != nil {
		return nil, err
	}
	m, err := ptnet.NewMachine(ctx, s.net,
		ptnet.WithID(id),
		ptnet.WithHistory(s.history(id)),
		ptnet.WithLogger(s.logger),
		ptnet.WithObserver(s.observers...),
	)
	if err != nil {
		return nil, err
	}
	if s.collector != nil {
		s.collector.Observe(m)
	}
	return m, nil
}

// Close writes the metrics file, if one is configured, and releases every
// store and connection the session opened.
func (s *session) Close() error {
	var err error
	if s.registry != nil {
		err = multierr.Append(err, metrics.WriteTextfile(s.env.MetricsFile, s.registry))
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, s.closers[i]())
	}
	_ = s.logger.Sync()
	return err
}

// withSession opens a session for the duration of f.
func withSession(cmd *cobra.Command, needNet bool, f func(ctx context.Context, s *session) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := open(ctx, needNet)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, s.Close())
	}()
	return f(ctx, s)
}
