package main

// VERSION contains version information
var VERSION = "0.1.0"
