// Package commands defines the clique CLI.
//
// Commands
//
//   - signup, signin, signout, whoami, refresh   Account and session
//   - profile show|update, search                Profiles
//   - dm, conversations, history, send, watch    Direct messages
//   - group create|list|show|invite              Groups
//   - channel create|list                        Group channels
//
// The root command restores the saved session from the home directory,
// dials the server and builds a client.App before any subcommand runs. The
// session is written back when the command returns, even on failure.
package commands
