// Package domain models oil storage tank polygons and the weekly
// remote-sensing statistics derived for them.
//
// # Data Sources
//
// Tank footprints come from OpenStreetMap via the Overpass API: closed
// ways tagged man_made=storage_tank inside a region's bounding box.
// Overpass returns a flat element list of nodes, ways, and relations;
// ways reference nodes by id, so a polygon is assembled by resolving
// those references. OSM is crowd-sourced and noisy — dangling node
// references, open rings, and self-intersecting rings are expected and
// are silently discarded rather than reported as errors. Relations
// (multi-part tanks) are requested from Overpass but not assembled;
// see [AssemblyReport.RelationsSkipped].
//
// Imagery is Sentinel-2 Level-2A surface reflectance. Band naming
// follows the product convention:
//
//	B2  blue    B3  green    B4  red    B8  NIR    B11 SWIR-1
//	QA60 quality bitmask     SCL scene classification
//
// Reflectance bands are delivered as integers scaled by 10000;
// dividing by [ReflectanceScale] normalizes them to [0, 1].
//
// # Cloud Masking
//
// QA60 encodes opaque clouds in bit 10 and cirrus in bit 11; a pixel
// is dropped when either bit is set. When the SCL band is present,
// pixels classified as cloud (3), cloud shadow (8), cirrus (9), or
// snow (11) are additionally dropped, combined with the QA mask by
// logical AND. Products without SCL fall back to the QA-only mask.
//
// # Derived Indices
//
// The primary signal is the shadow index, NIR − Red: a floating roof
// sits lower when the tank is full, so the interior wall casts a
// deeper shadow onto it. Lower shadow index and lower within-tank
// standard deviation both correlate with a fuller tank. NDVI and NDWI
// act as vegetation/water contamination controls, brightness as an
// overall illumination baseline, and GLCM texture contrast/entropy
// capture surface roughness. The GLCM transform requires integer
// input, so NIR is rescaled back to integer amplitude (×10000,
// truncated) before the texture pass.
//
// # Weekly Windows
//
// Statistics are aggregated over fixed 7-day windows anchored on a
// Wednesday, the EIA weekly petroleum status release day, so each
// window lines up with one reporting cycle. An anchor that is not a
// Wednesday is a configuration error, rejected before any network
// activity. Each window's composite is the per-pixel median of the
// qualifying scenes, which resists undetected cloud and haze better
// than the mean.
package domain
