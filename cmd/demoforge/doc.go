// Command demoforge turns a product specification into a narrated,
// captioned demo video.
//
// The run command walks the script, voiceover, captions, recording and
// composite stages against a per-product run root, reusing whatever artifacts
// earlier invocations left behind. Supporting commands inspect that run root
// (status), list past invocations (history), check the environment (doctor),
// and write starter files (config init, product init).
package main
