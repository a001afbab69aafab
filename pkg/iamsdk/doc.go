// Package iamsdk holds the wire types of the IAM portal API. Handlers encode
// them and Go clients decode them, so both sides of the contract live in one
// importable package.
package iamsdk
