// Package keyexchange installs one shared SSH identity on every host of a
// stack so the hosts can reach each other during the configuration phases.
package keyexchange
