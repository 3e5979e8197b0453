// Package inbox watches a directory for transcript files and analyses each
// one as it arrives.
//
// Run takes a flock-based lock so only one watcher serves a data directory,
// analyses files already waiting in the inbox, then reacts to fsnotify create
// events for .vtt and .txt files. Processed files move to done/, failures to
// failed/ next to a .error note with the error kind.
package inbox
