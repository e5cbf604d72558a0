/*
Package filesystem serves file operations inside the sandbox.

Relative paths resolve under the workspace; absolute paths are used as
given, since the sandbox itself is the isolation boundary.

Features:
  - Read with MIME detection (mimetype) and charset detection (chardet);
    non UTF-8 text is transcoded, binary content is returned base64 encoded
  - Write and upload with parent directory creation and octal modes
  - Listing, optionally recursive (fastwalk) and glob filtered (doublestar)
  - Checksums (SHA-256, BLAKE2b)
*/
package filesystem
