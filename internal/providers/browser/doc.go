/*
Package browser manages the sandbox's shared headless browser.

# Overview

A single browser engine is launched lazily on the first action and reused
for every later request. Concurrent first callers share one launch; a failed
launch leaves nothing behind, so the next action retries.

# Actions

Every action opens a fresh page, optionally navigates it, performs one
operation and closes the page again, including on error paths:

  - Goto: navigate and report the final URL and title
  - Screenshot: capture the viewport, the full page or one element
  - Evaluate: run a script in the page and return its JSON value
  - Click / Type: interact with the element matching a selector
  - Content: extract text, links and (optionally sanitized) HTML

Request cancellation closes only the page serving that request, never the
engine.

# Engine

The manager talks to the engine through the Engine and Page interfaces.
The production implementation drives Chromium through playwright-go.
*/
package browser
