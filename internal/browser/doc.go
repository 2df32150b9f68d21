// Package browser is the interaction engine of the hierarchical path browser.
//
// An Instance is one mounted browser widget. It owns its current path,
// history and rendered listing, and shares selection, clipboard, drag state
// and the open context menu with every other Instance created on the same
// Registry. Instances that share a Name form one selection namespace: they
// can drag and paste between each other and are refreshed together when a
// mutation touches the directory they display.
//
// The engine is headless. Hosts feed it gestures (ClickItem, Drop, KeyDown
// through a Document, ...) and render from Items, Address and the events
// published on Options.Bus. Store calls block the calling goroutine; the
// instance lock is never held across them, so several goroutines may drive
// the same Instance.
package browser
