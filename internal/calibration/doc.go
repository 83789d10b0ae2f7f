// Package calibration derives the pixel-to-millimetre scale of artifact
// images.
//
// Scanned drawings and camera photographs carry their resolution in the file
// header (PNG pHYs chunk, JPEG JFIF density or Exif XResolution). ReadDPI
// extracts it and FromDPI turns it into a
// Scale. Images without a usable header can instead be calibrated from a scale
// bar of known physical length with FromScaleBar.
//
// A Scale produces the area conversion factor expected by the surface
// analyzer: AreaFactor returns pixels² per mm², so dividing a pixel area by
// it yields mm².
package calibration
